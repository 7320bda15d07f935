package models

// RequestStatus is the superset of statuses used by all three request flows.
type RequestStatus string

const (
	StatusPending                   RequestStatus = "pending"
	StatusUnderReview               RequestStatus = "under_review"
	StatusPurchasing                RequestStatus = "purchasing"
	StatusInProgress                RequestStatus = "in_progress"
	StatusApproved                  RequestStatus = "approved"
	StatusRejected                  RequestStatus = "rejected"
	StatusAssigned                  RequestStatus = "assigned"
	StatusReturnedPendingInspection RequestStatus = "returned_pending_inspection"
	StatusClosed                    RequestStatus = "closed"
	StatusResolved                  RequestStatus = "resolved"
)

// statusRanks orders each flow's statuses. A request only ever moves to a status of
// equal or higher rank; terminal statuses share the top rank of their flow.
var statusRanks = map[RequestType]map[RequestStatus]int{
	RequestTypeItem: {
		StatusPending:                   0,
		StatusApproved:                  1,
		StatusAssigned:                  2,
		StatusReturnedPendingInspection: 3,
		StatusClosed:                    4,
		StatusRejected:                  4,
	},
	RequestTypeCustom: {
		StatusPending:     0,
		StatusUnderReview: 1,
		StatusPurchasing:  2,
		StatusApproved:    3,
		StatusRejected:    3,
	},
	RequestTypeReport: {
		StatusPending:     0,
		StatusUnderReview: 1,
		StatusInProgress:  2,
		StatusResolved:    3,
		StatusRejected:    3,
	},
}

var itemTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:                   {StatusApproved, StatusAssigned, StatusRejected},
	StatusApproved:                  {StatusAssigned, StatusRejected},
	StatusAssigned:                  {StatusReturnedPendingInspection},
	StatusReturnedPendingInspection: {StatusClosed},
}

// StatusRank returns the position of s within the flow of t, or -1 if s does not
// belong to that flow.
func StatusRank(t RequestType, s RequestStatus) int {
	ranks, ok := statusRanks[t]
	if !ok {
		return -1
	}
	rank, ok := ranks[s]
	if !ok {
		return -1
	}
	return rank
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(t RequestType, s RequestStatus) bool {
	switch s {
	case StatusRejected, StatusClosed, StatusResolved:
		return true
	case StatusApproved:
		return t == RequestTypeCustom
	}
	return false
}

// CanTransition reports whether a request of type t may move from one status to another.
//
// Item requests follow a fixed table. Custom and report requests move freely among
// their flow's statuses as long as they never go backward; staying on the same
// non-terminal status is allowed so an admin can revise the response text.
func CanTransition(t RequestType, from, to RequestStatus) bool {
	if IsTerminal(t, from) {
		return false
	}
	switch t {
	case RequestTypeItem:
		for _, next := range itemTransitions[from] {
			if next == to {
				return true
			}
		}
		return false
	case RequestTypeCustom, RequestTypeReport:
		fromRank, toRank := StatusRank(t, from), StatusRank(t, to)
		if fromRank < 0 || toRank < 0 || to == StatusPending {
			return false
		}
		return toRank >= fromRank
	}
	return false
}

// CommittedSpend reports whether a custom request in status s counts against the budget.
func CommittedSpend(s RequestStatus) bool {
	return s == StatusPurchasing || s == StatusApproved
}
