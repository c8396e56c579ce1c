/*
Package remux combines one audio and one video stream into a single
container by piping both into an ffmpeg process and exposing its output as
a stream.

# Process Layout

Each Session owns exactly one process:

	fd 3  <- audio input pipe  (fed from the audio stream.Handle)
	fd 4  <- video input pipe  (fed from the video stream.Handle)
	fd 1  -> output pipe       (read by the consumer through Session.Read)
	fd 2  -> bounded tail buffer for diagnostics

Streams are copied (-c copy), never re-encoded. Fragmented MP4 is used when
both inputs are MP4, WebM when both are WebM, and Matroska otherwise.

# Outcomes

A session ends in exactly one state:

  - Completed: ffmpeg exited 0 and both inputs were fully consumed
  - Failed: an input failed, a pipe broke or ffmpeg exited non-zero
  - Aborted: the consumer called Close (or its context ended) first

On Failed and Aborted the process is interrupted and, if it has not exited
within Config.KillGrace, killed. Both input handles are closed on every
path. Done is closed only after the process has been reaped and every pipe
end has been closed, so a finished session never leaves an orphaned
process or descriptor behind.

# Admission

Muxer limits concurrent sessions with a weighted semaphore. A request that
cannot get a slot within Config.AdmitTimeout fails with ErrBusy.
*/
package remux
