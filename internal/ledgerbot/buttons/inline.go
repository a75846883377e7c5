package buttons

const (
	// history pages
	NextPageHistory  = "NEXT_PAGE_HISTORY"
	BackPageHistory  = "BACK_PAGE_HISTORY"
	CloseListHistory = "CLOSE_LIST_HISTORY"

	// stakes pages
	NextPageStakes  = "NEXT_PAGE_STAKES"
	BackPageStakes  = "BACK_PAGE_STAKES"
	CloseListStakes = "CLOSE_LIST_STAKES"

	DefCloseId   = "DEF_CLOSE_ID"
	DefCloseText = "Close ❌"
)
