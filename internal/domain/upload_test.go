package domain

import "testing"

func TestBatchRequestValidate(t *testing.T) {
	valid := BatchRequest{
		Uploads: []Upload{
			{Name: "a.eps", Data: []byte("%!PS-Adobe-3.0 EPSF-3.0")},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	empty := BatchRequest{}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected validation error for empty request")
	}

	unnamed := BatchRequest{
		Uploads: []Upload{
			{Name: "a.eps"},
			{Name: "  "},
		},
	}
	if err := unnamed.Validate(); err == nil {
		t.Fatal("expected validation error for blank file name")
	}

	// Content is not inspected; the interpreter decides what it accepts.
	emptyFile := BatchRequest{
		Uploads: []Upload{
			{Name: "empty.eps"},
		},
	}
	if err := emptyFile.Validate(); err != nil {
		t.Fatalf("expected empty file to pass validation, got %v", err)
	}
}

func TestBatchRequestTotalBytes(t *testing.T) {
	req := BatchRequest{
		Uploads: []Upload{
			{Name: "a.eps", Data: make([]byte, 10)},
			{Name: "b.eps", Data: make([]byte, 32)},
		},
	}
	if got := req.TotalBytes(); got != 42 {
		t.Fatalf("expected 42 bytes, got %d", got)
	}
}
