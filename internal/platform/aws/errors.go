package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// isAPIErrorCode checks if the error is an AWS API error with one of the given codes.
func isAPIErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		for _, code := range codes {
			if apiErr.ErrorCode() == code {
				return true
			}
		}
	}
	return false
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return isAPIErrorCode(err,
		"NoSuchEntity",              // IAM
		"ResourceNotFoundException", // EKS
		"InvalidVpcID.NotFound",
		"InvalidSubnetID.NotFound",
		"InvalidRouteTableID.NotFound",
		"NatGatewayNotFound",
	)
}

// IsAlreadyExists checks if an error indicates the resource already exists.
func IsAlreadyExists(err error) bool {
	return isAPIErrorCode(err,
		"EntityAlreadyExists",    // IAM roles, instance profiles, OIDC providers
		"ResourceInUseException", // EKS clusters and node groups
		"RouteAlreadyExists",
		"Resource.AlreadyAssociated",
		"InvalidPermission.Duplicate",
	)
}

// IsThrottled checks if an error indicates rate limiting.
func IsThrottled(err error) bool {
	return isAPIErrorCode(err,
		"Throttling",
		"ThrottlingException",
		"RequestLimitExceeded",
		"TooManyRequestsException",
	)
}

// isPropagationDelay checks if an error is caused by IAM changes that have
// not reached the calling service yet. These errors heal within seconds.
func isPropagationDelay(err error) bool {
	if isAPIErrorCode(err, "InvalidParameterException") {
		var apiErr smithy.APIError
		errors.As(err, &apiErr)
		msg := strings.ToLower(apiErr.ErrorMessage())
		return strings.Contains(msg, "role") || strings.Contains(msg, "assume")
	}
	if isAPIErrorCode(err, "MalformedPolicyDocument") {
		// Trust policies naming a just-created OIDC provider are rejected
		// until the provider is visible.
		var apiErr smithy.APIError
		errors.As(err, &apiErr)
		return strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "invalid principal")
	}
	return false
}

// isRetryable reports whether an error is transient.
func isRetryable(err error) bool {
	return IsThrottled(err) || isPropagationDelay(err)
}
