// Package thumbnail proxies a link's preview image, resized and
// re-encoded as JPEG so the front end never talks to the image host.
package thumbnail
