// Package catalog resolves a link into the set of separately selectable
// audio-only and video-only encodings.
//
// Every lookup is fresh: catalogs are never cached and encoding ids are
// only meaningful within the listing they came from. Selection by policy
// (highestvideo, lowestaudio, ...) or by concrete id happens against that
// same listing so that the chosen format is always current.
package catalog
