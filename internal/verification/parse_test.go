package verification

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseResult", func() {
	When("parsing a well-formed reply", func() {
		var result *Result

		BeforeEach(func() {
			var err error
			result, err = ParseResult(`{"matches":[{"item":"a","status":"match","details":"x"}],"discrepancies":[],"overall_assessment":"ok"}`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse one match", func() {
			Expect(result.Matches).To(Equal([]Match{{Item: "a", Status: "match", Details: "x"}}))
		})

		It("should keep the discrepancies empty", func() {
			Expect(result.Discrepancies).To(BeEmpty())
		})

		It("should parse the assessment", func() {
			Expect(result.OverallAssessment).To(Equal("ok"))
		})
	})

	When("the reply is wrapped in markdown code fences", func() {
		It("should strip the fences and parse", func() {
			result, err := ParseResult("```json\n{\"matches\":[],\"discrepancies\":[],\"overall_assessment\":\"fine\"}\n```")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OverallAssessment).To(Equal("fine"))
		})
	})

	When("the reply has prose around the JSON object", func() {
		It("should bound the parse to the outermost object", func() {
			result, err := ParseResult("Here is my analysis:\n{\"overall_assessment\":\"bounded\"}\nLet me know if you need more.")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OverallAssessment).To(Equal("bounded"))
		})
	})

	When("fields are absent", func() {
		var result *Result

		BeforeEach(func() {
			var err error
			result, err = ParseResult(`{}`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should default the arrays to empty, not nil", func() {
			Expect(result.Matches).NotTo(BeNil())
			Expect(result.Matches).To(BeEmpty())
			Expect(result.Discrepancies).NotTo(BeNil())
			Expect(result.Discrepancies).To(BeEmpty())
		})

		It("should default the assessment to placeholder text", func() {
			Expect(result.OverallAssessment).To(Equal("No overall assessment provided"))
		})
	})

	When("severities are oddly cased or padded", func() {
		It("should normalize them to lowercase", func() {
			result, err := ParseResult(`{"discrepancies":[{"item":"x","severity":" HIGH ","details":"d"}]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Discrepancies[0].Severity).To(Equal("high"))
		})
	})

	When("the reply is not JSON at all", func() {
		It("should return an error", func() {
			_, err := ParseResult("I could not produce JSON today, sorry.")
			Expect(err).To(HaveOccurred())
		})
	})

	When("the reply has unbalanced braces", func() {
		It("should return an error", func() {
			_, err := ParseResult(`{"matches": [`)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("SeverityClass", func() {
	It("should map the known severities to their buckets", func() {
		Expect(SeverityClass("high")).To(Equal("high"))
		Expect(SeverityClass("medium")).To(Equal("medium"))
		Expect(SeverityClass("low")).To(Equal("low"))
	})

	It("should fall back to the neutral bucket for anything else", func() {
		Expect(SeverityClass("")).To(Equal("low"))
		Expect(SeverityClass("critical")).To(Equal("low"))
		Expect(SeverityClass("HIGH")).To(Equal("low"))
	})
})
