// Package binio implements the little-endian primitives shared by the table, ESF and
// animation formats: fixed-width integers and floats, length-prefixed UTF-8 and UTF-16
// strings, optional values and the cauleb128 varint.
//
// Reader methods never panic on short input; they return a *DataError pointing at the
// offending offset. Writer methods only fail when a value does not fit its length prefix
// or encoding.
package binio
