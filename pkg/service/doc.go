// Package service wires the encoder, decoder, write gate, value store and
// tree cache into the read and write paths exposed to transports.
package service
