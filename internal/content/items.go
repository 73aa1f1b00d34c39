package content

import "fmt"

type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

type Bundle struct {
	Music       []Item `json:"music"`
	Videos      []Item `json:"videos"`
	Meditations []Item `json:"meditations"`
	Games       []Item `json:"games"`
	Books       []Item `json:"books"`
	Images      []Item `json:"images"`
}

// Kind names a content list for load-more requests.
type Kind string

const (
	KindMusic       Kind = "music"
	KindVideos      Kind = "videos"
	KindMeditations Kind = "meditations"
	KindGames       Kind = "games"
	KindBooks       Kind = "books"
	KindImages      Kind = "images"
)

func yt(id string) (string, string) {
	return "https://www.youtube.com/embed/" + id, fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
}

func ytItem(id, title, desc, category, video string) Item {
	url, thumb := yt(video)
	return Item{ID: id, Title: title, Description: desc, Category: category, URL: url, Thumbnail: thumb}
}

var curated = Bundle{
	Music: []Item{
		ytItem("m1", "Relaxing Piano", "Calm piano melodies for relaxation.", "Ambient", "eu02b4y_2mQ"),
		ytItem("m2", "Chill Lo-Fi Beats", "Smooth beats for studying or chilling.", "Lo-Fi", "5qap5aO4i9A"),
		ytItem("m3", "Nature Sounds: Rain & Thunder", "Immersive sounds of a thunderstorm.", "Nature", "nDqK0N4rY_g"),
		ytItem("m4", "Classical Study Music", "Focus with classical masterpieces.", "Classical", "f2M2h4g150M"),
	},
	Videos: []Item{
		ytItem("v1", "Mindfulness Meditation for Beginners", "A gentle introduction to mindfulness.", "Guided", "inpohN5gq2E"),
		ytItem("v2", "Beautiful Ocean Waves 4K", "Soothing visuals of the sea.", "Visuals", "bn_h6g1z17I"),
		ytItem("v3", "Funny Animal Bloopers", "Laugh out loud with hilarious animals.", "Humor", "y2Q_Q_Q_Q_Q_Q_Q_Q_Q_Q_Q"),
		ytItem("v4", "Short Inspirational Story", "A quick boost of motivation.", "Inspiration", "y2Q_Q_Q_Q_Q_Q_Q_Q_Q_Q_Q"),
	},
	Meditations: []Item{
		ytItem("med1", "5-Minute Breath Awareness", "Quick grounding exercise for stress relief.", "Guided", "inpohN5gq2E"),
		ytItem("med2", "Deep Sleep Hypnosis", "Relax and drift into peaceful sleep.", "Sleep Aid", "bn_h6g1z17I"),
		ytItem("med3", "Walking Meditation Guide", "Practice mindfulness on the go.", "Guided", "eu02b4y_2mQ"),
		ytItem("med4", "Loving-Kindness Meditation", "Cultivate compassion and warmth.", "Affirmation", "5qap5aO4i9A"),
	},
	Games: []Item{
		{ID: "g1", Title: "Calming Color by Number", Description: "Relaxing digital coloring experience.", Category: "Creative", URL: "https://www.example.com/game1", Thumbnail: "https://placehold.co/120x80/A78BFA/FFFFFF?text=Game"},
		{ID: "g2", Title: "Zen Jigsaw Puzzles", Description: "Beautiful nature-themed puzzles.", Category: "Puzzle", URL: "https://www.example.com/game2", Thumbnail: "https://placehold.co/120x80/C4B5FD/FFFFFF?text=Game"},
		{ID: "g3", Title: "Memory Match: Nature Sounds", Description: "Gentle memory game with soothing audio.", Category: "Memory", URL: "https://www.example.com/game3", Thumbnail: "https://placehold.co/120x80/8B5CF6/FFFFFF?text=Game"},
		{ID: "g4", Title: "Digital Zen Garden", Description: "Rake sand and arrange stones virtually.", Category: "Simulation", URL: "https://www.example.com/game4", Thumbnail: "https://placehold.co/120x80/A78BFA/FFFFFF?text=Game"},
	},
	Books: []Item{
		{ID: "b1", Title: "The Comfort Book", Description: "Matt Haig's collection of notes on hope.", Category: "Self-Help", URL: "https://openlibrary.org/works/OL25056779W/The_Comfort_Book", Thumbnail: "https://placehold.co/120x80/C4B5FD/FFFFFF?text=Book"},
		{ID: "b2", Title: "Wherever You Go, There You Are", Description: "Jon Kabat-Zinn on mindfulness meditation.", Category: "Mindfulness", URL: "https://openlibrary.org/works/OL1584311W/Wherever_You_Go_There_You_Are", Thumbnail: "https://placehold.co/120x80/8B5CF6/FFFFFF?text=Book"},
		{ID: "b3", Title: "Atomic Habits", Description: "Small changes, remarkable results.", Category: "Productivity", URL: "https://openlibrary.org/works/OL20353406W/Atomic_Habits", Thumbnail: "https://placehold.co/120x80/A78BFA/FFFFFF?text=Book"},
		{ID: "b4", Title: "The Alchemist", Description: "Paulo Coelho's inspiring fable.", Category: "Fiction", URL: "https://openlibrary.org/works/OL1524310W/The_Alchemist", Thumbnail: "https://placehold.co/120x80/C4B5FD/FFFFFF?text=Book"},
	},
}

var imagePool = func() []string {
	ids := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("https://picsum.photos/id/%d/300/200", id)
	}
	return out
}()

var universeMessages = []string{
	"The universe whispers, 'You are exactly where you need to be.'",
	"A gentle reminder: Your strength is greater than any struggle.",
	"Embrace the quiet moments; they hold profound wisdom.",
	"Today, let your heart lead the way to new possibilities.",
	"You are a masterpiece in progress. Be kind to yourself.",
	"The stars align for those who believe in their own magic.",
	"Breathe in courage, breathe out doubt. You've got this.",
	"Every sunrise is an invitation to begin anew.",
	"Your intuition is a compass; trust its gentle guidance.",
	"The greatest adventure is the one you create within.",
}

func (b Bundle) clone() Bundle {
	cp := func(in []Item) []Item { return append([]Item{}, in...) }
	return Bundle{
		Music:       cp(b.Music),
		Videos:      cp(b.Videos),
		Meditations: cp(b.Meditations),
		Games:       cp(b.Games),
		Books:       cp(b.Books),
		Images:      cp(b.Images),
	}
}

func (b Bundle) list(k Kind) ([]Item, bool) {
	switch k {
	case KindMusic:
		return b.Music, true
	case KindVideos:
		return b.Videos, true
	case KindMeditations:
		return b.Meditations, true
	case KindGames:
		return b.Games, true
	case KindBooks:
		return b.Books, true
	}
	return nil, false
}

func filterCategory(items []Item, categories ...string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		for _, c := range categories {
			if it.Category == c {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
