package notifications

const (
	TypeApplicationDecided    = "application_decided"
	TypeExpenseDecided        = "expense_decided"
	TypeExpensePaid           = "expense_paid"
	TypeCorrectionDecided     = "correction_decided"
	TypeSalaryFinalized       = "salary_finalized"
	TypeSalaryPaid            = "salary_paid"
	TypeAnnouncementPublished = "announcement_published"
)

// EventNotification is the websocket frame type for a new notification.
const EventNotification = "notification.created"
