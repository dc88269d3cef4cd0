/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "context"

type requestContextKey struct{}

// RequestMetadata carries caller-supplied request data through context so it
// can be attached to log lines and emitted events without widening every
// signature in the distribution path.
type RequestMetadata struct {
	RequestId string // correlation id from the API layer
	Source    string // e.g. "nfc", "cli"
	ClientIp  string
}

// WithRequestMetadata attaches request metadata to a context.
func WithRequestMetadata(ctx context.Context, md *RequestMetadata) context.Context {
	return context.WithValue(ctx, requestContextKey{}, md)
}

// GetRequestMetadata retrieves request metadata from context, or nil if absent.
func GetRequestMetadata(ctx context.Context) *RequestMetadata {
	md, _ := ctx.Value(requestContextKey{}).(*RequestMetadata)
	return md
}
