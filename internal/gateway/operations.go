package gateway

import "fmt"

// operation names a remote call and its generic failure message.
// Messages are the ones the web front-end shows when the server gives no detail.
type operation struct {
	name     string
	fallback string
}

var (
	opIndices         = operation{"fetch_indices", "Impossible de charger les indices."}
	opScreening       = operation{"run_screening", "Une erreur est survenue lors du screening."}
	opHistory         = operation{"fetch_screening_history", "Impossible de charger l'historique des screenings."}
	opHistoryDetail   = operation{"fetch_screening_details", "Impossible de charger les détails du screening."}
	opHistoryDelete   = operation{"delete_screening", "Impossible de supprimer le screening."}
	opWatchlist       = operation{"get_watchlist", "Impossible de charger la watchlist."}
	opWatchlistAdd    = operation{"add_to_watchlist", "Impossible d'ajouter le ticker à la watchlist."}
	opWatchlistRemove = operation{"remove_from_watchlist", "Failed to remove item from watchlist."}
)

func dcfOp(ticker string) operation {
	return operation{"fetch_dcf_valuation", fmt.Sprintf("L'analyse DCF a échoué pour %s.", ticker)}
}

func financialsOp(ticker string) operation {
	return operation{"fetch_financials", fmt.Sprintf("Impossible de charger les données financières pour %s.", ticker)}
}
