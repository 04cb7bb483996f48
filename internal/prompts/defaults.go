package prompts

// Defaults returns the built-in templates keyed by template key.
func Defaults() map[string]string {
	return map[string]string{
		"newsletter": `Write this week's newsletter issue dated {{.Date}}.
Open with a short hook, cover the three to five most interesting insights below
with a paragraph each, and close with one takeaway. Use markdown headings.`,

		"linkedin_post": `Write a LinkedIn post drawing on the insights below.
Lead with a one-line observation, keep it under 250 words, no hashtags beyond three.`,

		"twitter_thread": `Write a thread of 5 to 8 posts based on the insights below.
Each post must fit in 280 characters. Number them 1/, 2/ and so on.`,

		"blog_post": `Write a blog article of roughly 800 words synthesising the insights below
into one argument. Give it a specific title and use markdown subheadings.`,

		"video_script": `Write a 2 to 3 minute video script from the insights below.
Mark scenes with [SCENE] and keep spoken lines conversational.`,

		"podcast_script": `Write a solo podcast segment outline and script from the insights below.
Include an intro, two or three talking points and an outro.`,
	}
}
