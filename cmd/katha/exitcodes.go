package main

// Exit codes shared by all commands.
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (missing API key, missing project paths)
	ExitDataError     = 3 // Data error (unsupported format, no episodes extracted)
	ExitModelMismatch = 4 // Sources indexed with different embedding models
	ExitModelNotFound = 5 // Local embedding model not pulled
)
