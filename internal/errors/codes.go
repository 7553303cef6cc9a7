package errors

import "strings"

// Error codes. The numeric band encodes the category:
// 1xx tenant/input, 2xx providers, 3xx cache, 4xx persistence, 9xx internal.
const (
	ErrCodeTenantNotFound      = "ERR_101_TENANT_NOT_FOUND"
	ErrCodeTenantInactive      = "ERR_102_TENANT_INACTIVE"
	ErrCodeInvalidInput        = "ERR_103_INVALID_INPUT"
	ErrCodeConfigInvalid       = "ERR_110_CONFIG_INVALID"
	ErrCodeProviderUnavailable = "ERR_201_PROVIDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_202_EMBEDDING_FAILED"
	ErrCodeGenerationFailed    = "ERR_203_GENERATION_FAILED"
	ErrCodeCacheUnavailable    = "ERR_301_CACHE_UNAVAILABLE"
	ErrCodeStoreFailure        = "ERR_401_STORE_FAILURE"
	ErrCodeInternal            = "ERR_900_INTERNAL"
)

// Category classifies errors by subsystem.
type Category string

const (
	CategoryTenant   Category = "Tenant"
	CategoryConfig   Category = "Config"
	CategoryProvider Category = "Provider"
	CategoryCache    Category = "Cache"
	CategoryStore    Category = "Store"
	CategoryInternal Category = "Internal"
)

// Severity indicates how serious an error is.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// categoryFromCode derives the category from the code's numeric band.
func categoryFromCode(code string) Category {
	switch {
	case strings.HasPrefix(code, "ERR_11"):
		return CategoryConfig
	case strings.HasPrefix(code, "ERR_1"):
		return CategoryTenant
	case strings.HasPrefix(code, "ERR_2"):
		return CategoryProvider
	case strings.HasPrefix(code, "ERR_3"):
		return CategoryCache
	case strings.HasPrefix(code, "ERR_4"):
		return CategoryStore
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity. Provider and cache outages are
// warnings because the pipeline degrades rather than fails.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryProvider, CategoryCache:
		return SeverityWarning
	case CategoryInternal:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// isRetryableCode marks transient failures.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderUnavailable, ErrCodeEmbeddingFailed,
		ErrCodeGenerationFailed, ErrCodeCacheUnavailable:
		return true
	default:
		return false
	}
}
