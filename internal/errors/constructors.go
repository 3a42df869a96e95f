package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BrimError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *BrimError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Run preconditions

func TemplateNotFound(path string) *BrimError {
	return New(CategoryTemplate, SeverityFatal, "template not found").
		WithContext("path", path)
}

func SourceTreeNotFound(path string) *BrimError {
	return New(CategorySource, SeverityFatal, "source directory not found").
		WithContext("path", path)
}

// Per-item errors

func MalformedDataRecord(path string, cause error) *BrimError {
	return Wrap(cause, CategoryData, SeverityError, "malformed data record").
		WithContext("path", path)
}

func EvaluationFailure(expression string, cause error) *BrimError {
	return Wrap(cause, CategoryRender, SeverityWarning, "expression evaluation failed").
		WithContext("expression", expression)
}

func LoopFailure(header string, cause error) *BrimError {
	return Wrap(cause, CategoryRender, SeverityWarning, "loop expansion failed").
		WithContext("loop", header)
}

func AssetFailure(path string, cause error) *BrimError {
	return Wrap(cause, CategoryAsset, SeverityError, "asset processing failed").
		WithContext("path", path)
}

// Hooks

func UnknownHookAction(name string) *BrimError {
	return New(CategoryValidation, SeverityFatal, "unknown hook action").
		WithContext("action", name)
}

func HookFailed(action string, cause error) *BrimError {
	return Wrap(cause, CategoryHook, SeverityFatal, "hook action failed").
		WithContext("action", action)
}

// Filesystem and internal errors

func WriteFailed(path string, cause error) *BrimError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "write failed").
		WithContext("path", path)
}

func UnhandledRenderFailure(path string, cause error) *BrimError {
	return Wrap(cause, CategoryInternal, SeverityFatal, "unhandled render failure").
		WithContext("path", path)
}

func InternalError(message string, cause error) *BrimError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
