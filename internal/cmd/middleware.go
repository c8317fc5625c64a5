package cmd

import (
	"mime"
	"net/http"
	"reflect"

	coreErrors "github.com/Malowking/parlrag/core/errors"
	"github.com/gogf/gf/v2/errors/gcode"
	"github.com/gogf/gf/v2/errors/gerror"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
	"github.com/gogf/gf/v2/util/gmeta"
)

const (
	contentTypeEventStream  = "text/event-stream"
	contentTypeOctetStream  = "application/octet-stream"
	contentTypeMixedReplace = "multipart/x-mixed-replace"
	contentTypeTextPlain    = "text/plain"
)

// genericErrorMessage 返回给调用方的错误信息，不包含模型服务的细节
const genericErrorMessage = "An error occurred while processing the message"

var (
	// streamContentType is the content types for stream response.
	streamContentType = []string{contentTypeEventStream, contentTypeOctetStream, contentTypeMixedReplace, contentTypeTextPlain}
)

// ErrorRes 错误响应体
type ErrorRes struct {
	Error string `json:"error"`
}

// MiddlewareHandlerResponse is the default middleware handling handler response object and its error.
func MiddlewareHandlerResponse(r *ghttp.Request) {
	r.Middleware.Next()

	// There's custom buffer content, it then exits current handler.
	if r.Response.BufferLength() > 0 || r.Response.Writer.BytesWritten() > 0 {
		return
	}

	// It does not output common response content if it is stream response.
	mediaType, _, _ := mime.ParseMediaType(r.Response.Header().Get("Content-Type"))
	for _, ct := range streamContentType {
		if mediaType == ct {
			return
		}
	}

	var (
		err = r.GetError()
		res = r.GetHandlerResponse()
	)
	if err != nil {
		status, body := errorResponse(err)
		g.Log().Errorf(r.Context(), "%s %s failed with %d: %+v", r.Method, r.URL.Path, status, err)
		r.Response.ClearBuffer()
		r.Response.WriteStatus(status)
		r.Response.ClearBuffer()
		r.Response.WriteJson(body)
		return
	}
	if r.Response.Status > 0 && r.Response.Status != http.StatusOK {
		r.Response.WriteJson(ErrorRes{Error: http.StatusText(r.Response.Status)})
		return
	}

	if noWrapResp(r) {
		r.Response.WriteJson(res)
		return
	}
	r.Response.WriteJson(ghttp.DefaultHandlerResponse{
		Code:    gcode.CodeOK.Code(),
		Message: gcode.CodeOK.Message(),
		Data:    res,
	})
}

// errorResponse 参数校验失败返回 400 和校验信息，其余错误按业务码映射状态码并返回通用信息
func errorResponse(err error) (int, ErrorRes) {
	if gerror.Code(err) == gcode.CodeValidationFailed {
		return http.StatusBadRequest, ErrorRes{Error: gerror.Current(err).Error()}
	}
	if appErr := coreErrors.GetAppError(err); appErr != nil {
		status := appErr.Code.HTTPStatusCode()
		if status == http.StatusBadRequest {
			return status, ErrorRes{Error: appErr.Message}
		}
		return status, ErrorRes{Error: genericErrorMessage}
	}
	return http.StatusInternalServerError, ErrorRes{Error: genericErrorMessage}
}

// 中间件中判断
func noWrapResp(r *ghttp.Request) bool {
	handler := r.GetServeHandler().Handler
	if handler.Info.Type != nil && handler.Info.Type.NumIn() == 2 {
		var objectReq = reflect.New(handler.Info.Type.In(1))
		if v := gmeta.Get(objectReq, "no_wrap_resp"); !v.IsEmpty() {
			return v.Bool()
		}
	}
	return false
}
