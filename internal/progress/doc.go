// Package progress implements the nested range tracker at the heart of
// progressd, plus the event primitives and non-blocking hub that carry tracker
// mutations to pluggable sinks such as Prometheus metrics or structured logs.
//
// A Tracker owns one absolute progress value in [0,1] and a stack of nested
// [lower,upper] range frames. Sub-tasks report progress in their own local
// [0,1] frame; the tracker translates that into the single global fraction.
package progress
