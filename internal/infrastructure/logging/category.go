package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	MongoDB         Category = "MongoDB"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Room            Category = "Room"
	Websocket       Category = "Websocket"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Room
	Join    SubCategory = "Join"
	Leave   SubCategory = "Leave"
	Send    SubCategory = "Send"
	Expiry  SubCategory = "Expiry"
	Fanout  SubCategory = "Fanout"
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"

	// Websocket
	Upgrade SubCategory = "Upgrade"
	Read    SubCategory = "Read"
	Write   SubCategory = "Write"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"

	RoomID       ExtraKey = "RoomID"
	ConnectionID ExtraKey = "ConnectionID"
	MemberCount  ExtraKey = "MemberCount"
	EventType    ExtraKey = "EventType"
)
