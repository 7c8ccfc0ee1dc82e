// Package apicontext keeps named Arena API backends so the CLI can switch
// between them without passing --api-url every time.
//
// Contexts live in contexts.yaml next to config.yaml:
//
//	current-context: staging
//	contexts:
//	  - name: local
//	    base_url: http://localhost:3000/api
//	  - name: staging
//	    base_url: https://staging.arena.gg/api
//	    settings:
//	      output: json
//
// # Precedence
//
// The API base URL for a command is taken from, highest first:
//  1. --api-url
//  2. ARENA_API_URL
//  3. --context
//  4. ARENA_CONTEXT
//  5. current-context from contexts.yaml
//  6. api.base_url from config.yaml
//
// A session belongs to one backend: when a context is selected its token and
// activity are stored in a state directory of their own (see StateDir).
//
// The Store serializes access within one process only.
package apicontext
