package common

// chunk metadata keys
const (
	MetaSpeaker    = "speaker"
	MetaPosition   = "position"
	MetaSourceFile = "sourceFile"
	MetaUnit       = "unit"
	MetaChunk      = "chunk"
)

// 向量库字段
const (
	FieldID         = "id"
	FieldContent    = "text"
	FieldVector     = "vector"
	FieldSpeaker    = "speaker"
	FieldSourceFile = "source_file"
	FieldMetadata   = "metadata"
)
