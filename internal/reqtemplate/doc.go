// Package reqtemplate compiles declarative request templates into
// reusable evaluators.
//
// A template spec is a nested mapping of request parts (uri, method,
// headers, query, body, ...) whose string leaves may embed {expr}
// placeholders. Compile walks the spec exactly once: every leaf is
// classified as a literal, an inlinable bare expression, or a complex
// multi-fragment template; complex templates are compiled into standalone
// sub-templates registered in a function table under opaque handles; the
// uri field is matched against three mutually exclusive resolution
// strategies; and each leaf gets a precomputed path setter that knows how
// to materialize its containers in the output.
//
// The resulting Template is evaluated many times, each call against a
// fresh evaluation context (the inbound request plus auxiliary values).
// Evaluation is tolerant by construction: a leaf whose expression cannot
// be resolved is silently omitted from the output, never an error. All
// evaluation state is per-call, so one Template may be evaluated from
// concurrent goroutines.
package reqtemplate
