package errors

// ErrCode 业务错误码类型
type ErrCode int

const (
	// 通用错误 1000-1999
	ErrInvalidParameter ErrCode = 1001 // 参数错误
	ErrInternalError    ErrCode = 1003 // 内部错误
	ErrNotFound         ErrCode = 1004 // 资源未找到
	ErrOperationFailed  ErrCode = 1006 // 操作失败

	// 模型相关 2000-2999
	ErrModelConfigInvalid ErrCode = 2002 // 模型配置无效
	ErrEmbeddingFailed    ErrCode = 2003 // Embedding失败
	ErrLLMCallFailed      ErrCode = 2004 // LLM调用失败
	ErrStreamingFailed    ErrCode = 2007 // 流式响应失败
	ErrStructuredOutput   ErrCode = 2008 // 结构化输出解析失败

	// 文档相关 4000-4999
	ErrDocumentParseFailed ErrCode = 4002 // 文档解析失败
	ErrFileReadFailed      ErrCode = 4007 // 文件读取失败
	ErrIndexingFailed      ErrCode = 4009 // 索引失败
	ErrIngestFailed        ErrCode = 4010 // 导入失败
	ErrScrapeFailed        ErrCode = 4011 // 抓取失败

	// 向量数据库 5000-5999
	ErrVectorStoreInit     ErrCode = 5001 // 向量库初始化失败
	ErrVectorSearch        ErrCode = 5002 // 向量搜索失败
	ErrVectorInsert        ErrCode = 5003 // 向量插入失败
	ErrVectorStoreNotFound ErrCode = 5005 // 向量库不存在

	// 对话相关 7000-7999
	ErrConversationStore ErrCode = 7001 // 对话存储失败
	ErrMessageNotFound   ErrCode = 7002 // 消息未找到
	ErrChatFailed        ErrCode = 7003 // 聊天失败
	ErrHopLimitExceeded  ErrCode = 7004 // Agent 跳数超限
	ErrUnknownTool       ErrCode = 7005 // 未知工具

	// 检索相关 9000-9999
	ErrRetrievalFailed ErrCode = 9001 // 检索失败
	ErrRewriteFailed   ErrCode = 9002 // 查询重写失败
	ErrWebSearchFailed ErrCode = 9003 // 网络搜索失败
)

// HTTPStatusCode 返回错误码对应的HTTP状态码
func (e ErrCode) HTTPStatusCode() int {
	switch e {
	case ErrInvalidParameter:
		return 400
	case ErrNotFound, ErrMessageNotFound:
		return 404
	}
	switch {
	case e >= 2000 && e <= 2999:
		// 模型服务不可用或返回异常
		return 502
	default:
		return 500
	}
}
