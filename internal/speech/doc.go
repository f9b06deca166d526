// Package speech streams WAV audio to the cloud recognition service over a
// websocket and surfaces recognized phrases as an ordered channel of Results.
//
// A session is authorized with a bearer token issued for the subscription key
// (SubscriptionTokenProvider caches it), opens with a speech.config message
// carrying RequestMetadata, then uploads audio as binary frames terminated by
// an empty chunk. The sender and receiver run on separate goroutines; the
// receiver is the only writer to the Results channel, so consumers see phrases
// in the order the service produced them. Hypotheses are logged at debug level
// and never delivered.
package speech
