// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command typebind resolves Java generic type parameters through a
// project's class hierarchy.
//
// Usage:
//
//	typebind resolve ./my-project java.util.Map com.acme.NameRegistry 1
//	typebind chain ./my-project java.util.List com.acme.UserBatch
//	typebind types ./my-project --prefix com.acme.
//	typebind serve --config typebind.yaml
//
// Example requests against a running server:
//
//	curl -X POST http://localhost:12218/v1/typebind/init \
//	  -H "Content-Type: application/json" \
//	  -d '{"project_root": "/path/to/project"}'
//
//	curl -X POST http://localhost:12218/v1/typebind/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"universe_id": "ID", "ancestor": "java.util.Map", "leaf": "com.acme.NameRegistry", "position": 1}'
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
