// Package posted models the nested tree a client posts when writing field
// values. Posted payloads key fields by arbitrary indexes and the decoder
// must emit updates in posted order, so objects keep their key order instead
// of decoding into Go maps.
package posted
