// Package harness runs conformance suites against the coordinate engine,
// the locator decoder and the canonical encoder.
//
// A suite is a YAML file:
//
//	name: basics
//	description: day boundary and capsule decoding
//	kks:
//	  - pulse: "17491"
//	    expect: {dayIndex: "0", beat: 35, stepIndex: 43, kairos: "35:43:10"}
//	  - pulse: "-1"
//	    error: INVALID_ARGUMENT
//	krl:
//	  - url: https://x/s/h?p=c:eyJ1Ijo1LCJiIjowLCJzIjoxfQ
//	    expect: {kind: content, artifactHash: h, pulse: "5", beat: "0", stepIndex: "1"}
//	kcs:
//	  - name: sorted keys
//	    input: '{"b":1,"a":2}'
//	    canonical: '{"a":2,"b":1}'
//
// Unknown fields are rejected so typos fail loudly. Pulses and claimed
// coordinates are strings to keep arbitrary precision; KCS inputs are JSON
// text because YAML would blur integers and floats.
//
// Besides the per-vector expectations, a suite has a snapshot: the KCS-1
// encoding of every engine output. Tests compare it with goldie
// (AssertGolden, RunWithGolden); the conform command compares it with a
// .golden file next to the suite (CheckGoldenFile).
package harness
