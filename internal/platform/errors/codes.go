// Package errors provides structured, coded errors for the edge runtime.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Provisioning errors
	CodeProvisionFailed       Code = "PROVISION_FAILED"
	CodeManifestInvalid       Code = "MANIFEST_INVALID"
	CodeManifestEntryRejected Code = "MANIFEST_ENTRY_REJECTED"

	// Intercept-path errors
	CodeFetchFailed      Code = "FETCH_FAILED"
	CodeRefreshDropped   Code = "REFRESH_DROPPED"
	CodeMethodIneligible Code = "METHOD_INELIGIBLE"

	// Partition errors
	CodePartitionNameEmpty Code = "PARTITION_NAME_EMPTY"
	CodeEntryNotFound      Code = "ENTRY_NOT_FOUND"

	// Deferred-work errors
	CodeTaskFailed      Code = "TASK_FAILED"
	CodePushPayloadBad  Code = "PUSH_PAYLOAD_BAD"
	CodeStoreUnready    Code = "STORE_UNREADY"
	CodeRuntimeShutdown Code = "RUNTIME_SHUTDOWN"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeManifestInvalid,
		CodeManifestEntryRejected,
		CodeMethodIneligible,
		CodePartitionNameEmpty,
		CodePushPayloadBad:
		return codes.InvalidArgument

	// NotFound - missing records
	case CodeEntryNotFound:
		return codes.NotFound

	// Unavailable - transient transport and provisioning failures
	case CodeProvisionFailed,
		CodeFetchFailed,
		CodeRefreshDropped,
		CodeRuntimeShutdown:
		return codes.Unavailable

	// FailedPrecondition - state doesn't allow the operation
	case CodeStoreUnready:
		return codes.FailedPrecondition

	// Internal - handler faults
	case CodeTaskFailed:
		return codes.Internal

	default:
		return codes.Unknown
	}
}
