package transcode

import (
	"errors"
)

var (
	ErrorInterfaceMismatch      = errors.New("interface not implemented")
	ErrorUnsupportedMedia       = errors.New("unsupported media type")
	ErrorAllocateFormatContext  = errors.New("error allocating format context")
	ErrorAllocateCodecContext   = errors.New("error allocating codec context")
	ErrorNoCodecFound           = errors.New("no decoder found for codec")
	ErrorNoStreamFound          = errors.New("no audio or video stream found")
	ErrorNoFilterName           = errors.New("no filter with given name")
	ErrorAllocSrcContext        = errors.New("error allocating buffer source context")
	ErrorAllocSinkContext       = errors.New("error allocating buffer sink context")
	ErrorSrcContextSetParameter = errors.New("error setting buffer source parameters")
	ErrorSrcContextInitialise   = errors.New("error initialising buffer source")
	ErrorGraphParse             = errors.New("error parsing filter graph content")
	ErrorGraphConfigure         = errors.New("error configuring filter graph")
	ErrorInputCount             = errors.New("filter input count does not match effect")

	WarnNoFilterContent = errors.New("filter graph content is empty")
)
