// Package retry retries operations with exponential backoff.
//
// AWS is eventually consistent: a freshly created IAM role may not be
// assumable for several seconds and API calls are throttled under load. The
// platform client wraps such calls in [WithExponentialBackoff], marking
// errors that cannot heal with [Fatal] or restricting retries with [If].
package retry
