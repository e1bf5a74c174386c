package agents

import "github.com/itzneel05/voxagent/catalog"

// GroceryCatalog returns the grocery item catalog, including prepared-food
// recipes that expand into their ingredients.
func GroceryCatalog() *catalog.Memory {
	m := catalog.NewMemory(
		&catalog.Entry{ID: "tea-leaves", Name: "Tea Leaves", Price: 120, Category: "Beverages"},
		&catalog.Entry{ID: "milk", Name: "Milk", Price: 60, Category: "Dairy"},
		&catalog.Entry{ID: "sugar", Name: "Sugar", Price: 45, Category: "Staples"},
		&catalog.Entry{ID: "cardamom-pods", Name: "Cardamom Pods", Price: 90, Category: "Spices"},
		&catalog.Entry{ID: "toor-dal", Name: "Toor Dal", Price: 150, Category: "Staples", Tags: []string{"vegetarian", "vegan", "gluten-free"}},
		&catalog.Entry{ID: "turmeric-powder", Name: "Turmeric Powder", Price: 55, Category: "Spices"},
		&catalog.Entry{ID: "cumin-seeds", Name: "Cumin Seeds", Price: 70, Category: "Spices"},
		&catalog.Entry{ID: "ghee", Name: "Ghee", Price: 320, Category: "Dairy", Tags: []string{"vegetarian"}},
		&catalog.Entry{ID: "paneer", Name: "Paneer", Price: 110, Category: "Dairy", Tags: []string{"vegetarian"}},
		&catalog.Entry{ID: "tomato-puree", Name: "Tomato Puree", Price: 40, Category: "Staples", Tags: []string{"vegan"}},
		&catalog.Entry{ID: "onion", Name: "Onion", Price: 35, Category: "Produce", Tags: []string{"vegan"}},
		&catalog.Entry{ID: "garam-masala", Name: "Garam Masala", Price: 85, Category: "Spices", Tags: []string{"spicy"}},
		&catalog.Entry{ID: "ginger-garlic-paste", Name: "Ginger Garlic Paste", Price: 50, Category: "Staples"},
		&catalog.Entry{ID: "basmati-rice", Name: "Basmati Rice", Price: 180, Category: "Staples", Tags: []string{"vegan", "gluten-free"}},
		&catalog.Entry{ID: "biryani-masala", Name: "Biryani Masala", Price: 75, Category: "Spices", Tags: []string{"spicy"}},
		&catalog.Entry{ID: "mixed-vegetables", Name: "Mixed Vegetables", Price: 95, Category: "Produce", Tags: []string{"vegan"}},
		&catalog.Entry{ID: "atta", Name: "Atta (Wheat Flour)", Price: 210, Category: "Staples", Tags: []string{"vegetarian"}},
		&catalog.Entry{ID: "poha-rice", Name: "Poha (Flattened Rice)", Price: 65, Category: "Staples", Tags: []string{"vegan"}},
		&catalog.Entry{ID: "peanuts", Name: "Peanuts", Price: 80, Category: "Snacks", Tags: []string{"vegan", "gluten-free"}},
		&catalog.Entry{ID: "mustard-seeds", Name: "Mustard Seeds", Price: 60, Category: "Spices"},
		&catalog.Entry{ID: "green-chilies", Name: "Green Chilies", Price: 25, Category: "Produce", Tags: []string{"vegan", "spicy"}},

		&catalog.Entry{ID: "masala-chai", Name: "Masala Chai", Category: "Prepared Food",
			Related:     []string{"tea-leaves", "milk", "sugar", "cardamom-pods"},
			Description: "Spiced tea, expands into its ingredients"},
		&catalog.Entry{ID: "dal", Name: "Dal", Category: "Prepared Food",
			Related:     []string{"toor-dal", "turmeric-powder", "cumin-seeds", "ghee"},
			Description: "Lentil curry, expands into its ingredients"},
		&catalog.Entry{ID: "paneer-curry", Name: "Paneer Curry", Category: "Prepared Food",
			Related: []string{"paneer", "tomato-puree", "onion", "garam-masala", "ginger-garlic-paste"}},
		&catalog.Entry{ID: "biryani", Name: "Biryani", Category: "Prepared Food",
			Related: []string{"basmati-rice", "biryani-masala", "mixed-vegetables"}},
		&catalog.Entry{ID: "roti", Name: "Roti", Category: "Prepared Food",
			Related: []string{"atta", "ghee"}},
		&catalog.Entry{ID: "poha", Name: "Poha", Category: "Prepared Food",
			Related: []string{"poha-rice", "peanuts", "mustard-seeds", "green-chilies", "onion"}},
	)
	return m
}

// Concept is one tutor topic: a short summary for learn mode and a
// multiple-choice question for quiz mode.
type Concept struct {
	ID       string
	Title    string
	Summary  string
	Question string
	Options  []string
}

// TutorContent returns the tutor topics keyed by topic id. The ids match the
// tutor schema's topic enum.
func TutorContent() map[string]Concept {
	return map[string]Concept{
		"variables": {
			ID:       "variables",
			Title:    "Variables",
			Summary:  "Variables store values so you can reuse them later.",
			Question: "What is a variable and why is it useful?",
			Options: []string{
				"Option A: A named storage for a value",
				"Option B: A function that prints text",
				"Option C: A loop that repeats steps",
			},
		},
		"loops": {
			ID:       "loops",
			Title:    "Loops",
			Summary:  "Loops repeat a block of steps until a condition is met.",
			Question: "What does a loop let you do?",
			Options: []string{
				"Option A: A way to repeat actions",
				"Option B: A single-use constant",
				"Option C: A comment for documentation",
			},
		},
		"functions": {
			ID:       "functions",
			Title:    "Functions",
			Summary:  "Functions bundle steps behind a name so logic can be reused and tested.",
			Question: "What is a function?",
			Options: []string{
				"Option A: A reusable named block of steps",
				"Option B: A place to store a single value",
				"Option C: A way to stop the program",
			},
		},
	}
}

// SDRFAQ returns the product FAQ the sales persona answers from.
func SDRFAQ() *catalog.Memory {
	m := catalog.NewMemory()
	m.AddFAQ(
		&catalog.FAQEntry{ID: "pricing", Question: "How much does it cost?",
			Answer: "Plans start at a free tier for small teams; paid plans are priced per seat per month.",
			Tags:   []string{"pricing", "cost", "plans"}},
		&catalog.FAQEntry{ID: "trial", Question: "Is there a free trial?",
			Answer: "Yes, every paid plan comes with a 14 day trial, no card required.",
			Tags:   []string{"trial", "free"}},
		&catalog.FAQEntry{ID: "integrations", Question: "What does it integrate with?",
			Answer: "We integrate with the major CRMs, Slack, and anything else over the REST API and webhooks.",
			Tags:   []string{"integrations", "api", "crm"}},
		&catalog.FAQEntry{ID: "security", Question: "Is my data secure?",
			Answer: "All data is encrypted in transit and at rest, and we are SOC 2 Type II certified.",
			Tags:   []string{"security", "compliance", "encryption"}},
		&catalog.FAQEntry{ID: "deployment", Question: "Can we self-host?",
			Answer: "We are cloud-first, but an on-premises build is available on the enterprise plan.",
			Tags:   []string{"deployment", "self-host", "enterprise"}},
	)
	return m
}
