// Command autotube turns a topic into a narrated, captioned short video and
// optionally publishes it.
//
// `autotube run` executes one job in the foreground, `autotube serve` starts
// the HTTP gateway, and `autotube jobs` lists jobs known to a running server.
package main
