package instance

import "os"

// GetID returns the worker instance identifier used in log fields. Deploy
// environments set FASKET_WORKER_ID; local runs fall back to a fixed name.
func GetID() string {
	if id := os.Getenv("FASKET_WORKER_ID"); id != "" {
		return id
	}
	return "settlement-worker-0"
}
