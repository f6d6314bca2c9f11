// Package codec implements the stateless transforms used by the REPL
// session engine: UTF-8 text transcoding, an incremental stream decoder
// that tolerates multi-byte characters split across read chunks, the
// hex-escaped quoted-byte-string format produced by the remote
// interpreter's hexlify output, and the decimal bytes-literal format
// consumed by the remote interpreter's write call.
package codec
