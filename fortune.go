package passport

import "github.com/Solsynth/DysonNetwork-sub002/domain"

// Fixed fortune-tip pools, 14 entries per polarity. Tip selection samples
// distinct indices from these.
var positiveFortuneTips = []domain.FortuneTip{
	{IsPositive: true, Title: "Meeting friends", Content: "A chance encounter today brings good company your way."},
	{IsPositive: true, Title: "Starting projects", Content: "Momentum favors anything you begin before sundown."},
	{IsPositive: true, Title: "Sharing ideas", Content: "Speak up — the room is more receptive than you think."},
	{IsPositive: true, Title: "Taking a walk", Content: "Fresh air untangles a problem you've been circling."},
	{IsPositive: true, Title: "Learning something new", Content: "A small lesson today compounds into a big skill."},
	{IsPositive: true, Title: "Tidying up", Content: "Clearing one shelf clears more of your head than expected."},
	{IsPositive: true, Title: "Reaching out", Content: "An old contact is happy to hear from you."},
	{IsPositive: true, Title: "Trying new food", Content: "An unfamiliar dish becomes a new favorite."},
	{IsPositive: true, Title: "Asking for help", Content: "The person you ask was hoping to be asked."},
	{IsPositive: true, Title: "Making plans", Content: "A plan sketched today holds up surprisingly well."},
	{IsPositive: true, Title: "Saving a little", Content: "Small restraint now pays for a small joy later."},
	{IsPositive: true, Title: "Early rest", Content: "Tomorrow rewards the sleep you bank tonight."},
	{IsPositive: true, Title: "Backing up work", Content: "Future you silently thanks present you."},
	{IsPositive: true, Title: "Saying yes", Content: "An invitation you'd normally decline turns out delightful."},
}

var negativeFortuneTips = []domain.FortuneTip{
	{IsPositive: false, Title: "Impulse purchases", Content: "The cart can wait a day; the regret cannot be returned."},
	{IsPositive: false, Title: "Heated arguments", Content: "A point won today costs more than it's worth."},
	{IsPositive: false, Title: "Skipping meals", Content: "An empty stomach makes every task twice as heavy."},
	{IsPositive: false, Title: "Overtime", Content: "The extra hour produces little and takes much."},
	{IsPositive: false, Title: "Big decisions", Content: "Sleep on it — the picture looks different tomorrow."},
	{IsPositive: false, Title: "Lending things", Content: "What leaves your hands today is slow to return."},
	{IsPositive: false, Title: "Gossip", Content: "A word passed along finds its way back with interest."},
	{IsPositive: false, Title: "Rushing out the door", Content: "The forgotten item is the one you need most."},
	{IsPositive: false, Title: "Doomscrolling", Content: "The feed takes your evening and gives nothing back."},
	{IsPositive: false, Title: "Cold drinks", Content: "Your stomach files a complaint by nightfall."},
	{IsPositive: false, Title: "Procrastination", Content: "The postponed task grows teeth overnight."},
	{IsPositive: false, Title: "Overpromising", Content: "A casual yes today becomes a heavy debt tomorrow."},
	{IsPositive: false, Title: "Shortcuts", Content: "The quick path loops back to the start."},
	{IsPositive: false, Title: "Staying up late", Content: "Midnight bravado, morning misery."},
}

var birthdayFortuneTip = domain.FortuneTip{
	IsPositive: true,
	Title:      "Happy birthday!",
	Content:    "The whole day is yours — everything is favorable, nothing is inauspicious.",
}
