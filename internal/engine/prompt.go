package engine

// LLM prompt templates — data only, no logic.

// qaSystemPrompt fixes the generator's role and output contract. The model
// is told to produce difficulty-graded Hindi QA pairs as a single JSON
// object; everything downstream assumes the {"qa_pairs": [...]} shape.
const qaSystemPrompt = `You are an expert Hindi Educational QA Generator that creates structured, difficulty-graded question-answer pairs from Hindi video transcripts. Output must be valid JSON.

Guidelines:
1. Question types: factual, conceptual, and applied questions; MCQs carry 1 correct answer + 3 plausible distractors.
2. Language: natural, fluent Hindi with grammatical accuracy and clarity.
3. Return all output as a single JSON object with a "qa_pairs" array and NO additional text.`

// Per-type instruction templates. Each fixes the target count range, the
// required field set, and the exact JSON shape of one item.
var qaTypeInstructions = map[QuestionType]string{
	TypeNovice: `Generate 3-5 Novice level questions in JSON format.
Return questions in this format:
{
  "qa_pairs": [
    {
      "question": "question text here",
      "answer": "answer text here",
      "type": "novice"
    }
  ]
}`,

	TypeMCQ: `Generate 3-5 Multiple Choice Questions (MCQs) in JSON format.
Each question has exactly one correct answer and exactly three wrong options; the "options" list contains all four in any order.
Return questions in this format:
{
  "qa_pairs": [
    {
      "question": "question text here",
      "answer": "correct answer here",
      "type": "mcq",
      "options": ["correct answer", "wrong option 1", "wrong option 2", "wrong option 3"]
    }
  ]
}`,

	TypeFillBlanks: `Generate 3-5 Fill in the Blanks questions in JSON format.
For each question, take a sentence from the text and replace a key word or phrase with '____'.
Return questions in this format:
{
  "qa_pairs": [
    {
      "question": "sentence with ____ for blank",
      "answer": "word or phrase that goes in blank",
      "type": "fill_blanks"
    }
  ]
}`,
}

// qaUserPrompt wraps a per-type instruction and the transcript text.
// Args: type instruction, transcript text.
const qaUserPrompt = `Please generate questions based on the following transcript text.
Return ONLY a JSON object with NO additional text or formatting.

Instructions:
1. %s
2. Ensure all text is in Hindi
3. Make questions progressively more challenging
4. Return ONLY the JSON object, no other text
5. Ensure the JSON is properly formatted and valid

Transcript Text:
%s`
