// Package language canonicalizes the BCP 47 locales sent to the recognition
// service and renders them for display.
package language
