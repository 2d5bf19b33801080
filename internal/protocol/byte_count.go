package protocol

// ByteCount is a count of bytes, used for lengths and offsets.
type ByteCount int64
