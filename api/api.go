// Package api embeds the OpenAPI document of the coprocessor command channel.
package api

import _ "embed"

//go:embed command-channel.openapi.yaml
var CommandChannelSpec []byte
