package fields

// NotFound is the value stored in a Record field when no pattern matched
const NotFound = "Não encontrado"

// Keys lists the record keys in display order
var Keys = []string{"Customer", "DueDate", "Amount", "TaxId"}

// Record holds the billing fields extracted from a document's text.
// Every field is either a matched value or NotFound.
type Record struct {
	Customer string `json:"Customer"`
	DueDate  string `json:"DueDate"`
	Amount   string `json:"Amount"` // "R$ 1.234,56" or NotFound
	TaxID    string `json:"TaxId"`
}

// Map returns the record as a map keyed by Keys
func (r Record) Map() map[string]string {
	return map[string]string{
		"Customer": r.Customer,
		"DueDate":  r.DueDate,
		"Amount":   r.Amount,
		"TaxId":    r.TaxID,
	}
}

// Found reports how many fields hold a matched value
func (r Record) Found() int {
	n := 0
	for _, v := range r.Map() {
		if v != NotFound {
			n++
		}
	}
	return n
}
