package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 鉴权错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 支付模块错误 300xx
	ErrPaymentNotFound        = 30001
	ErrProviderUnavailable    = 30002
	ErrProviderNotConfigured  = 30003
	ErrCallbackTokenInvalid   = 30004
	ErrCallbackPayloadInvalid = 30005

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
