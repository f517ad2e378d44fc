package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldRecordID    = "id"
	FieldCoffeeType  = "type"
	FieldAmountML    = "amount_ml"
	FieldPrice       = "price"
	FieldHasPrice    = "has_price"
	FieldDate        = "date"
	FieldCount       = "count"
	FieldPath        = "path"
	FieldFromVersion = "from_version"
	FieldToVersion   = "to_version"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentRecords = "records"
	ComponentStorage = "storage"
	ComponentPrefs   = "prefs"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpSave     = "save"
	OpImport   = "import"
	OpExport   = "export"
	OpMigrate  = "migrate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeDecode        = "decode_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds error type field
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord adds record-related fields
func (f LogFields) WithRecord(id, coffeeType string, amountML float64, price *float64) LogFields {
	f[FieldRecordID] = id
	f[FieldCoffeeType] = coffeeType
	f[FieldAmountML] = amountML
	f[FieldHasPrice] = price != nil
	if price != nil {
		f[FieldPrice] = *price
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
