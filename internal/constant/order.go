package constant

const (
	OrderStreamName       = "orders"
	OrderStreamSubjectAll = "orders.*"

	// Command channel: OrderCommand-shaped payloads from the submission path.
	OrderCommandSubject = "orders.command"
	// Event channel: OrderEvent-shaped payloads from the execution worker.
	OrderEventSubject = "orders.event"

	ExecutionQueueGroup = "execution_worker_group"
)
