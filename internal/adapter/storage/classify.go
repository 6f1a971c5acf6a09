package storage

import (
	"errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/semmidev/rdsbackup/internal/domain"
)

// Error codes that retrying cannot fix.
var permanentCodes = map[string]bool{
	"AccessDenied":          true,
	"AllAccessDisabled":     true,
	"AccountProblem":        true,
	"ExpiredToken":          true,
	"InvalidAccessKeyId":    true,
	"InvalidBucketName":     true,
	"InvalidToken":          true,
	"NoSuchBucket":          true,
	"SignatureDoesNotMatch": true,
	"EntityTooLarge":        true,
	"QuotaExceeded":         true,
	"storageQuotaExceeded":  true,
}

var transientCodes = map[string]bool{
	"InternalError":              true,
	"RequestTimeout":             true,
	"ServiceUnavailable":         true,
	"SlowDown":                   true,
	"Throttling":                 true,
	"ThrottlingException":        true,
	"RequestLimitExceeded":       true,
	"rateLimitExceeded":          true,
	"userRateLimitExceeded":      true,
	"backendError":               true,
	"XMinioServerNotInitialized": true,
}

// classifyCode marks err by provider error code, falling back to the HTTP
// status. Errors with neither are returned unchanged.
func classifyCode(err error, code string, status int) error {
	switch {
	case permanentCodes[code]:
		return domain.Permanent(err)
	case transientCodes[code]:
		return domain.Transient(err)
	}
	return classifyStatus(err, status)
}

func classifyStatus(err error, status int) error {
	switch {
	case status == 0:
		return err
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		return domain.Transient(err)
	case status >= 400:
		return domain.Permanent(err)
	}
	return err
}

// classifyAWS inspects an aws-sdk-go-v2 error.
func classifyAWS(err error) error {
	var code string
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}

	var status int
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}

	return classifyCode(err, code, status)
}
