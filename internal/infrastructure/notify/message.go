package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/benefits-portal/internal/domain/event"
)

var titles = map[event.Type]string{
	event.TypeApplicationSubmitted:     "New application submitted",
	event.TypeApplicationStatusChanged: "Application status changed",
	event.TypeApplicationApproved:      "Application approved",
	event.TypeApplicationRejected:      "Application rejected",
	event.TypeApplicationInfoRequested: "Additional information requested",
	event.TypeApplicationPaid:          "Application paid",
	event.TypeApplicationDeleted:       "Application deleted",
	event.TypePayoutBatchCreated:       "Payout batch created",
	event.TypePayoutBatchImported:      "Payout results imported",
	event.TypePayoutBatchCompleted:     "Payout batch completed",
	event.TypePayoutBatchCancelled:     "Payout batch cancelled",
	event.TypeComplaintSubmitted:       "New complaint submitted",
	event.TypeComplaintAssigned:        "Complaint assigned",
	event.TypeComplaintStatusChanged:   "Complaint status changed",
}

// FormatMessage renders evt as plain text for chat delivery
func FormatMessage(evt *event.Event) string {
	title, ok := titles[evt.Type]
	if !ok {
		title = evt.Type.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s #%d by %s", title, evt.EntityType, evt.EntityID, evt.ActorID)

	keys := make([]string, 0, len(evt.Payload))
	for k := range evt.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, evt.Payload[k])
	}
	return b.String()
}
