// Package source opens network-backed elementary streams for encodings
// selected from a fresh catalog.
//
// A Stream delivers bytes as they arrive and ends in exactly one of three
// outcomes: Completed on a clean end of stream, Failed when the transfer
// breaks (including a stall caught by the idle watchdog), or Aborted when
// the consumer closes it early. The network connection is released on
// every path before Done is closed.
package source
