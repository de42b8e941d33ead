package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	OutcomeSucceeded         = "succeeded"
	OutcomeInterpreterFailed = "interpreter_failed"
	OutcomePostProcessFailed = "postprocess_failed"
	OutcomeInputFailed       = "input_failed"
)

type Upload struct {
	Name string
	Data []byte
}

type BatchRequest struct {
	Uploads []Upload
}

func (r BatchRequest) Validate() error {
	if len(r.Uploads) == 0 {
		return errors.New("select at least one EPS file")
	}
	for i, upload := range r.Uploads {
		if strings.TrimSpace(upload.Name) == "" {
			return fmt.Errorf("files[%d] has no file name", i)
		}
	}
	return nil
}

func (r BatchRequest) TotalBytes() int64 {
	var total int64
	for _, upload := range r.Uploads {
		total += int64(len(upload.Data))
	}
	return total
}
