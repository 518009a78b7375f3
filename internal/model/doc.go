// Package model defines the records exchanged between actors through the
// relay. Records are plain JSON values; everything a reader must trust
// travels inside a crypto.SignedData and is decoded into these types only
// after verification.
package model
