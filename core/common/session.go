package common

// ParlSession 会议基本信息
type ParlSession struct {
	Title string `json:"title,omitempty"`
	Date  string `json:"date,omitempty"`
}

// SessionStatement 一次发言，Title 为发言人姓名
type SessionStatement struct {
	Position   string   `json:"position,omitempty"`
	Title      string   `json:"title,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

// SessionFile 抓取后落盘的会议速记文件
type SessionFile struct {
	ParlSession       *ParlSession        `json:"parlSession,omitempty"`
	StatementCount    int                 `json:"statementCount"`
	PersonCount       int                 `json:"personCount"`
	SessionStatements []*SessionStatement `json:"sessionStatements"`
}
