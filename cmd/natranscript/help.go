package main

import (
	"fmt"
	"io"
)

const signupHint = "Sign up at https://www.microsoft.com/cognitive-services/ with a client/subscription id to get a client secret key."

func displayHelp(w io.Writer, message string) {
	if message == "" {
		message = "natranscript help"
	}
	fmt.Fprintln(w, message)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: natranscript <subscriptionKey>")
	fmt.Fprintln(w, "Arg[0]: Specify the subscription key to access the Speech Recognition Service.")
	fmt.Fprintln(w, "        Falls back to speech.subscription_key or $SPEECH_SUBSCRIPTION_KEY.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, signupHint)
}
