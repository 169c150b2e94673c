// Package pipeline provides the publish pipeline of foilreport.
//
// A run goes prepare → fetch → render → verify → swap → deploy. Each stage is
// implemented as a Step that receives the run record and can modify it. The
// Pipeline drives the run through the state machine of model.Stage: any
// failure before the swap completes leaves the previous report live, and once
// the pointer is swapped the run is DEPLOYED whatever happens afterwards.
package pipeline
