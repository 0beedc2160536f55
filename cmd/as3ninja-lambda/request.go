// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// CustomHostVariable is the name of the environment variable that contains
// the custom hostname for the request. If this variable is not set
// DefaultServerAddress is used. The value should include a protocol:
// http://my-custom.host.com
const CustomHostVariable = "GO_API_HOST"

// DefaultServerAddress is prepended to the path of each incoming request
const DefaultServerAddress = "https://as3ninja.lambda"

// StripBasePathVariable names a path prefix (e.g. /as3ninja) removed from
// requests before routing.
const StripBasePathVariable = "AS3N_STRIP_BASE_PATH"

type RequestAccessor struct {
	stripBasePath string
}

func (r *RequestAccessor) ProxyEventToHTTPRequest(req events.ALBTargetGroupRequest) (*http.Request, error) {
	decodedBody := []byte(req.Body)
	if req.IsBase64Encoded {
		base64Body, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, err
		}
		decodedBody = base64Body
	}

	stripBasePath := r.stripBasePath
	if len(stripBasePath) == 0 {
		stripBasePath = os.Getenv(StripBasePathVariable)
	}

	path := req.Path
	if len(stripBasePath) > 1 && strings.HasPrefix(path, stripBasePath) {
		path = strings.Replace(path, stripBasePath, "", 1)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	serverAddress := DefaultServerAddress
	if customAddress, ok := os.LookupEnv(CustomHostVariable); ok {
		serverAddress = customAddress
	}
	path = serverAddress + path

	query := url.Values{}
	for q, l := range req.MultiValueQueryStringParameters {
		for _, v := range l {
			query.Add(q, v)
		}
	}
	if len(req.MultiValueQueryStringParameters) == 0 {
		for q, v := range req.QueryStringParameters {
			query.Set(q, v)
		}
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	httpRequest, err := http.NewRequest(
		strings.ToUpper(req.HTTPMethod),
		path,
		bytes.NewReader(decodedBody),
	)
	if err != nil {
		fmt.Printf("Could not convert request %s:%s to http.Request\n", req.HTTPMethod, req.Path)
		log.Println(err)
		return nil, err
	}

	for h := range req.Headers {
		httpRequest.Header.Add(h, req.Headers[h])
	}

	for hk, hvs := range req.MultiValueHeaders {
		for _, hv := range hvs {
			httpRequest.Header.Add(hk, hv)
		}
	}

	return httpRequest, nil
}
