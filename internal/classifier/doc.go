// Package classifier owns the lifecycle of the pre-trained image model a scan
// session classifies frames with. It supports several model backends: a JSON
// fixture for offline use, a generic HTTP inference endpoint, and Google Cloud
// Vision label detection, with retry logic, rate limiting, and response caching
// for the remote backends.
package classifier
