package response

import (
	"net/http"

	"github.com/go-chi/render"
)

// Response — общий конверт всех JSON-ответов API
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Error возвращает конверт ошибки; msg — машинный код вида OUT_OF_STOCK
func Error(msg string) Response {
	return Response{Success: false, Message: msg}
}

// Render пишет конверт с указанным HTTP-статусом
func Render(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	render.Status(r, status)
	render.JSON(w, r, resp)
}
