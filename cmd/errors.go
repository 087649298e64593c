// SPDX-License-Identifier: Apache-2.0

package cmd

import "errors"

var errEndpointRequired = errors.New("--endpoint is required, or set GQLMIRROR_ENDPOINT")
