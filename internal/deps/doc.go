// Package deps checks for the external binaries natranscript shells out to.
package deps
