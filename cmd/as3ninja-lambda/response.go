// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// ProxyResponseWriter collects the response of an http.Handler
// for an ALB target group.
type ProxyResponseWriter struct {
	headers http.Header
	body    bytes.Buffer
	status  int
}

var _ http.ResponseWriter = &ProxyResponseWriter{}

func NewProxyResponseWriter() *ProxyResponseWriter {
	return &ProxyResponseWriter{headers: http.Header{}}
}

func (w *ProxyResponseWriter) Header() http.Header { return w.headers }

func (w *ProxyResponseWriter) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(data)
}

func (w *ProxyResponseWriter) WriteHeader(status int) {
	w.status = status
}

// GetProxyResponse encodes bodies that are not valid UTF-8, for
// example compressed responses, with base64. multiValue has to match
// the multi value headers setting of the target group.
func (w *ProxyResponseWriter) GetProxyResponse(multiValue bool) (events.ALBTargetGroupResponse, error) {
	if w.status == 0 {
		return events.ALBTargetGroupResponse{}, errors.New("Status code not set on response")
	}

	body := w.body.String()
	isBase64 := false

	if !utf8.ValidString(body) || len(w.headers.Get("Content-Encoding")) > 0 {
		body = base64.StdEncoding.EncodeToString(w.body.Bytes())
		isBase64 = true
	}

	resp := events.ALBTargetGroupResponse{
		StatusCode:        w.status,
		StatusDescription: fmt.Sprintf("%d %s", w.status, http.StatusText(w.status)),
		Body:              body,
		IsBase64Encoded:   isBase64,
	}

	if multiValue {
		resp.MultiValueHeaders = map[string][]string(w.headers)
	} else {
		resp.Headers = singleValueHeaders(w.headers)
	}

	return resp, nil
}

func singleValueHeaders(headers http.Header) map[string]string {
	result := map[string]string{}
	for k, vs := range headers {
		result[k] = strings.Join(vs, ",")
	}
	return result
}
