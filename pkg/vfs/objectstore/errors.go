package objectstore

import (
	stderrors "errors"

	"github.com/aws/smithy-go"

	"github.com/joe/twinpane/pkg/errors"
)

// classify maps S3 API error codes onto error kinds, falling back to the generic classifier.
func classify(err error, op, p string) error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		if kind := codeKind(apiErr.ErrorCode()); kind != errors.KindUnknown {
			return errors.New(kind, op, p, err)
		}
	}

	return errors.Classify(err, op, p)
}

func codeKind(code string) errors.Kind {
	switch code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return errors.KindNotFound
	case "AccessDenied", "Forbidden", "AllAccessDisabled", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errors.KindPermissionDenied
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return errors.KindUnavailable
	case "PreconditionFailed", "BucketAlreadyExists", "BucketAlreadyOwnedByYou", "OperationAborted":
		return errors.KindConflict
	case "InvalidBucketName", "InvalidArgument", "KeyTooLongError", "InvalidObjectName":
		return errors.KindValidation
	case "MethodNotAllowed", "NotImplemented":
		return errors.KindReadOnly
	default:
		return errors.KindUnknown
	}
}
