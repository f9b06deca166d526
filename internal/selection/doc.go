// Package selection resolves which episode a run transcribes, either by
// prompting the operator with the catalog or by reading the episode number out
// of an audio file name ("NA-1234-2020-05-01.mp3" yields "1234").
package selection
