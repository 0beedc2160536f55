// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"carvel.dev/as3ninja/pkg/cmd"
	"carvel.dev/as3ninja/pkg/cmd/core"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type HandlerFuncAdapter struct {
	RequestAccessor
	handler http.Handler
}

func New(handler http.Handler) *HandlerFuncAdapter {
	return &HandlerFuncAdapter{
		handler: handler,
	}
}

func (h *HandlerFuncAdapter) Proxy(event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	req, err := h.ProxyEventToHTTPRequest(event)
	if err != nil {
		return events.ALBTargetGroupResponse{StatusCode: 421}, fmt.Errorf("Could not convert event to request: %v", err)
	}

	w := NewProxyResponseWriter()
	h.handler.ServeHTTP(http.ResponseWriter(w), req)

	resp, err := w.GetProxyResponse(len(event.MultiValueHeaders) > 0)
	if err != nil {
		return events.ALBTargetGroupResponse{StatusCode: 422}, fmt.Errorf("Error while generating response: %v", err)
	}

	return resp, nil
}

func main() {
	// settings and schemas have to live below /tmp
	if _, found := os.LookupEnv("HOME"); !found {
		os.Setenv("HOME", os.TempDir())
	}

	env, err := core.NewEnv(ui.NewTTY(false))
	if err != nil {
		log.Fatalf("Loading settings: %s", err)
	}

	server := cmd.NewServeOptions().Server(env)
	lambda.Start(New(server.Handler()).Proxy)
}
