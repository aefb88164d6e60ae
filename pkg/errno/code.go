package errno

// code=0 request succeeded
// code=4xx client errors
// code=5xx server errors
// code=2xxxx business errors

type Errno struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Unauthorized"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrStoreDown      = &Errno{Code: 503, Message: "State store unavailable"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// Media job errors.
	ErrMediaURLRequired  = &Errno{Code: 20001, Message: "media_url is required"}
	ErrMediaURLInvalid   = &Errno{Code: 20002, Message: "media_url is not a valid http(s) URL"}
	ErrJobIDRequired     = &Errno{Code: 20003, Message: "job_id is required"}
	ErrJobNotFound       = &Errno{Code: 20004, Message: "job not found"}
	ErrJobExists         = &Errno{Code: 20005, Message: "job already exists"}
	ErrQueueFull         = &Errno{Code: 20006, Message: "job queue is full"}
	ErrJobNotCancellable = &Errno{Code: 20007, Message: "job is no longer queued and cannot be cancelled"}
	ErrArtifactNotFound  = &Errno{Code: 20008, Message: "artifact not found"}
	ErrArtifactIllegal   = &Errno{Code: 20009, Message: "artifact name is illegal"}
)
