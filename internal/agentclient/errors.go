package agentclient

import (
	"errors"
	"net/http"
	"net/url"

	"google.golang.org/grpc/codes"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// errorBody is the shape of an agent's JSON error response. agent_code,
// when present, is a grpc status code name — some agents run their own
// internal control loop over grpc and surface that code verbatim in their
// HTTP error bodies, which lets the categoriser reuse the standard
// google.golang.org/grpc/codes taxonomy instead of inventing its own.
type errorBody struct {
	Message   string `json:"message"`
	AgentCode string `json:"agent_code,omitempty"`
}

// CategoryOf extracts the ErrorCategory a caller should act on from err,
// preferring an explicit *apierrors.CategorizedError if present.
func CategoryOf(err error) models.ErrorCategory {
	if err == nil {
		return models.CategoryUnknown
	}
	var ce *apierrors.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return models.CategoryTimeout
		}
		return models.CategoryNetwork
	}
	return models.CategoryUnknown
}

// categorizeHTTPStatus maps an HTTP status code to an ErrorCategory (spec
// §4.2, §7). 4xx/5xx are application-level failures and are never
// retried regardless of category.
func categorizeHTTPStatus(code int) models.ErrorCategory {
	switch {
	case code == http.StatusUnauthorized:
		return models.CategoryAuthentication
	case code == http.StatusForbidden:
		return models.CategoryAuthorisation
	case code == http.StatusNotFound:
		return models.CategoryNotFound
	case code == http.StatusConflict:
		return models.CategoryConflict
	case code == http.StatusUnprocessableEntity || code == http.StatusBadRequest:
		return models.CategoryValidation
	case code >= 500:
		return models.CategoryServer
	default:
		return models.CategoryUnknown
	}
}

// categorizeGRPCCode maps a grpc status code name reported in an agent's
// error body onto the same closed ErrorCategory set used everywhere else.
func categorizeGRPCCode(name string) models.ErrorCategory {
	code, ok := grpcCodeByName(name)
	if !ok {
		return models.CategoryAgent
	}
	switch code {
	case codes.Unauthenticated:
		return models.CategoryAuthentication
	case codes.PermissionDenied:
		return models.CategoryAuthorisation
	case codes.NotFound:
		return models.CategoryNotFound
	case codes.AlreadyExists, codes.Aborted:
		return models.CategoryConflict
	case codes.InvalidArgument, codes.FailedPrecondition:
		return models.CategoryValidation
	case codes.DeadlineExceeded:
		return models.CategoryTimeout
	case codes.Unavailable:
		return models.CategoryNetwork
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return models.CategoryServer
	default:
		return models.CategoryAgent
	}
}

func grpcCodeByName(name string) (codes.Code, bool) {
	for c := codes.OK; c <= codes.Unauthenticated; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return codes.Unknown, false
}
