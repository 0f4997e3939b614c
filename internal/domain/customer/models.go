package customer

// AttritionFlag is the binary churn status carried by the source extract.
type AttritionFlag string

const (
	Existing AttritionFlag = "Existing Customer"
	Attrited AttritionFlag = "Attrited Customer"
)

// IsValidAttritionFlag reports whether s is one of the two flags the extract uses.
func IsValidAttritionFlag(s string) bool {
	return AttritionFlag(s) == Existing || AttritionFlag(s) == Attrited
}

// Income categories as spelled in the source extract, ordered bottom to top tier.
const (
	IncomeLessThan40K = "Less than $40K"
	Income40Kto60K    = "$40K - $60K"
	Income60Kto80K    = "$60K - $80K"
	Income80Kto120K   = "$80K - $120K"
	Income120KPlus    = "$120K +"
	IncomeUnknown     = "Unknown"
)

// IncomeCategories lists the known income brackets, lowest first. Unknown last.
var IncomeCategories = []string{
	IncomeLessThan40K,
	Income40Kto60K,
	Income60Kto80K,
	Income80Kto120K,
	Income120KPlus,
	IncomeUnknown,
}

// Card tiers as spelled in the source extract.
const (
	CardBlue     = "Blue"
	CardSilver   = "Silver"
	CardGold     = "Gold"
	CardPlatinum = "Platinum"
)

// Record is one row of the flat customer extract, keyed by ClientID.
// The dataset is immutable after load; records are never updated or deleted.
type Record struct {
	ClientID int64 `json:"clientId"`

	// Demographics
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	DependentCount int    `json:"dependentCount"`
	EducationLevel string `json:"educationLevel"`
	MaritalStatus  string `json:"maritalStatus"`

	// Account attributes
	IncomeCategory string  `json:"incomeCategory"`
	CardCategory   string  `json:"cardCategory"`
	MonthsOnBook   int     `json:"monthsOnBook"`
	CreditLimit    float64 `json:"creditLimit"`

	// Transactional metrics
	TotalRevolvingBal   float64 `json:"totalRevolvingBal"`
	AvgOpenToBuy        float64 `json:"avgOpenToBuy"`
	TotalAmtChngQ4Q1    float64 `json:"totalAmtChngQ4Q1"`
	TotalTransAmt       float64 `json:"totalTransAmt"`
	TotalTransCt        int     `json:"totalTransCt"`
	TotalCtChngQ4Q1     float64 `json:"totalCtChngQ4Q1"`
	AvgUtilizationRatio float64 `json:"avgUtilizationRatio"`

	// Behavioral counts and churn status
	TotalRelationshipCount int           `json:"totalRelationshipCount"`
	MonthsInactive12Mon    int           `json:"monthsInactive12Mon"`
	ContactsCount12Mon     int           `json:"contactsCount12Mon"`
	AttritionFlag          AttritionFlag `json:"attritionFlag"`
}

// IsAttrited reports whether the customer has churned.
func (r Record) IsAttrited() bool {
	return r.AttritionFlag == Attrited
}

// AgeBrackets lists the derived age buckets in ascending order.
var AgeBrackets = []string{"26-36", "37-47", "48-58", "59+"}

// AgeBracket maps an age to its bucket. Brackets are defined by their upper
// bound, so every age maps to exactly one bucket; ages below the extract's
// minimum of 26 fold into the first.
func AgeBracket(age int) string {
	switch {
	case age <= 36:
		return "26-36"
	case age <= 47:
		return "37-47"
	case age <= 58:
		return "48-58"
	default:
		return "59+"
	}
}
