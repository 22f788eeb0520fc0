package utils

// Structured log field names shared across packages.
const (
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldURL        = "url"
	FieldMethod     = "method"
	FieldEndpoint   = "endpoint"
	FieldStatusCode = "status_code"
	FieldRepo       = "repository_key"
	FieldClass      = "rclass"
	FieldFile       = "file"
	FieldUsername   = "username"
	FieldChanged    = "changed"
	FieldPath       = "path"
)
