package main

import (
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/teslashibe/medi-voice/internal/log"
)

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	Fallback  bool      `json:"fallback"`
}

type apiError struct {
	Error string `json:"error"`
}

func ask(w io.Writer, baseURL string, timeout time.Duration, question string) error {
	var (
		out  askResponse
		fail apiError
	)
	resp, err := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		R().
		SetBody(askRequest{Message: question}).
		SetResult(&out).
		SetError(&fail).
		Post("/api/medical-ai")
	if err != nil {
		return err
	}
	if resp.IsError() {
		if fail.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status(), fail.Error)
		}
		return fmt.Errorf("%s", resp.Status())
	}

	log.Debug("answered", "latency", resp.Time(), "fallback", out.Fallback)

	fmt.Fprintln(w, out.Response)
	if out.Fallback {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "(answered from the built-in reference; the AI service was unavailable)")
	}
	return nil
}
