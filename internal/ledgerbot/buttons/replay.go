package buttons

const (
	// user menu
	Balance   = "💰 Balance"
	MyStakes  = "📈 My stakes"
	History   = "📃 History"
	Referrals = "🧑‍💼 Referrals"
	Yield     = "📊 Yield"
)
